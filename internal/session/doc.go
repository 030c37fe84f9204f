// Package session ties a transport to the protocol engine.
//
// A Session assigns sequence numbers, writes commands, waits for their
// responses and routes async traffic: sensor packets are split across the
// subscribed groups' decoders, orbBasic text goes to its handler and
// anything else reaches the catch-all async handler.
//
// Subscribing to a sensor group only updates the local masks and decoder
// list. Call UpdateStreaming to send the new masks to the robot.
//
//	s := session.New(link, tables)
//	if err := s.Open(ctx); err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	s.Subscribe("imu_filtered", func(b []byte) {
//	    v := protocol.Int16s(b)
//	    fmt.Println("pitch", v[0], "roll", v[1], "yaw", v[2])
//	})
//	if err := s.UpdateStreaming(ctx, 20); err != nil {
//	    return err
//	}
package session
