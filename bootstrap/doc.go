// Package bootstrap runs a command-line task with the kbuild lifecycle:
// validated config, an initialised logger, start and stop hooks, and
// cancellation on SIGINT or SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.OnStop(providers.Shutdown)
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    return build(ctx)
//	})
package bootstrap
