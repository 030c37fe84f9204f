// Package server implements the sprk telemetry bridge.
//
// The bridge connects to one or more robots, subscribes to sensor groups
// and republishes every decoded sample and orbBasic message as JSON over a
// websocket feed. Any number of clients may connect to /ws; each receives a
// hello event carrying its client ID and then every event broadcast after
// it joined. A client that falls behind loses events instead of stalling
// the robot link.
//
// # Event Format
//
//	{"type":"sample","time":"...","robot":"SK-1234",
//	 "sample":{"group":"imu_filtered","fields":["pitch","roll","yaw"],"values":[3,-1,90]}}
//
//	{"type":"orbbasic","time":"...","robot":"SK-1234",
//	 "orbbasic":{"error":false,"text":"hello"}}
//
// # Capture
//
// With Config.CaptureDir set, every event is also appended to
// capture-<timestamp>.jsonl in that directory.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Port: server.DefaultPort})
//	if err != nil {
//	    return err
//	}
//	if err := srv.Attach("kitchen", r, []string{"imu_filtered"}); err != nil {
//	    return err
//	}
//	r.UpdateStreaming(ctx, 20)
//	return srv.Start(ctx)
package server
