// Package passbolt provides a Go client for the passbolt API.
//
//	client, _ := passbolt.New("https://passbolt.example.com",
//	    passbolt.WithAPIKey(os.Getenv("PASSBOLT_API_KEY")),
//	)
//
//	report, err := client.Healthcheck(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !report.Database.Connect {
//	    log.Println("database unreachable")
//	}
//
// Healthcheck runs the full server side suite and can take tens of seconds on
// a degraded instance; bound it with the context. Status is the cheap
// liveness probe.
package passbolt
