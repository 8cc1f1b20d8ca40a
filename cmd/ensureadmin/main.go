// Command ensureadmin creates the superuser account if it is missing. It
// accepts the server's configuration flags plus -email and -password.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/admincli"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = admincli.Run(ctx, os.Args[1:], os.LookupEnv, os.Stdin, os.Stdout, app.Accounts().EnsureAdmin)
	if cerr := app.Close(); cerr != nil {
		log.Printf("shutdown: %v", cerr)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}
