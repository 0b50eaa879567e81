// Package telemetry provides observability for the sanctuary tools.
//
// It integrates structured logging (zerolog), tracing (OpenTelemetry),
// metrics (Prometheus) and in-process event publishing.
//
// # Architecture
//
//  1. Structured Logging - component loggers carried through context
//  2. Tracing - one span per keeper operation, exported as JSON to a local writer
//  3. Metrics - a private Prometheus registry, written as a textfile on shutdown
//  4. Events - an ordered in-process feed of admissions, transfers and violations
//
// Nothing here opens a network listener. Metrics are exported through the
// node exporter textfile format instead of an HTTP endpoint.
//
// # Usage
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	op := tel.StartOperation(ctx, "intake", telemetry.AttrPrimateName.String(name))
//	err = doIntake(op.Ctx)
//	op.End(err)
//
// # Events
//
// Subscribers receive events in publish order:
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    fmt.Println(e.Message)
//	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))
package telemetry
