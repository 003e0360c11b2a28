// Package influxdb records item history in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library for connection
// management and batched writes. Recorder subscribes to the device registry
// and writes every numeric or boolean item change as a point:
//
//	item_values,resource=sensors,id=4,item=state/temperature value=2150
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	rec := influxdb.NewRecorder(client)
//	registry.Subscribe(rec)
//	go rec.Run(ctx)
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
