// Package robot provides typed Sphero commands on top of a session.
//
// Every method encodes its arguments into a command payload and reduces to
// session.Send. Responses that carry data are decoded into VersionInfo,
// DeviceName and Color.
//
// # Usage Example
//
//	r := robot.New(s)
//
//	if err := r.SetRGBLED(ctx, robot.Color{R: 0xFF}, false, true); err != nil {
//	    return err
//	}
//	if err := r.Roll(ctx, 0x40, 90, false); err != nil {
//	    return err
//	}
//
//	r.Stream("imu_filtered", func(s robot.Sample) {
//	    fmt.Println(s)
//	})
//	r.UpdateStreaming(ctx, 10)
//
// # OrbBasic
//
// LoadOrbBasic erases a storage area and appends a program one line per
// command. ExecuteOrbBasic runs it; printed text and errors arrive through
// session.SetOrbBasicHandler.
package robot
