// Package ui provides terminal output components for the sprk CLI.
//
// One-shot commands print a Header, run, and finish with a Result box.
// Everything goes through a Printer so output can be captured in tests.
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Ping", "sprk ping", ui.Detail{Key: "Robot", Value: "/dev/rfcomm0"})
//	p.PrintSuccess("Robot responded", ui.Detail{Key: "Round trip", Value: "12ms"})
//
// The stream command uses the MonitorModel, a Bubble Tea program showing the
// latest value of every subscribed sensor group, refreshed as samples
// arrive. Groups that stop updating are greyed out.
//
//	samples := make(chan robot.Sample, 64)
//	r.Stream("imu_filtered", func(s robot.Sample) { samples <- s })
//	err := ui.RunMonitor(ctx, ui.MonitorConfig{Robot: "SK-1", Rate: 20, Samples: samples})
//
// # Logging Integration
//
// Logging is controlled via the SPRK_LOG_LEVEL environment variable. When
// unset, zap logging is silent so the styled output stays clean.
package ui
