// Package app provides application bootstrap, lifecycle management and the
// services container for switchyard.
//
// # Architecture Overview
//
// The package is the layer between the command line and the rest of the
// module. It has four parts:
//
//  1. Configuration (config.go): runtime options from flags, plus the loaded
//     configuration file
//  2. Bootstrap (bootstrap.go): logging setup, configuration loading and
//     construction of the services container
//  3. Services (services.go): the registry with every service factory, the
//     route table, the project watcher and the HTTP server
//  4. Modes (modes.go): the long-running server mode with signal handling
//
// # Startup Sequence
//
//  1. Logging is initialized from flags so that loading can be reported
//  2. config.yaml is loaded from --config-path, or ~/.config/switchyard
//  3. Logging is re-initialized with the file's settings; flags still win
//  4. InitializeServices registers factories and routes. Nothing is
//     initialized yet.
//  5. Start kicks off background initialization, waits for the critical
//     services (ai-client), starts the watcher and opens the listener
//
// The server accepts requests before every service is ready. Routes that
// cannot reach their primary fall back as configured, so basic chat answers
// as soon as the AI client is up and enhanced chat upgrades itself once the
// context manager and DIAS finish initializing.
//
// # Shutdown
//
// SIGINT, SIGTERM or a cancelled context stop the server first, then the
// watcher, then every initialized service, bounded by
// server.shutdownTimeout.
//
// # Usage
//
//	cfg := app.NewConfig(debug, silent, configPath, version)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
