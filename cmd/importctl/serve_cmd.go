package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/obralink/importkit/modules/importing/presentation/controllers"
	"github.com/obralink/importkit/pkg/middleware"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the import API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			r := mux.NewRouter()
			r.Use(middleware.WithLogger(a.log))
			r.Use(middleware.ProvidePool(a.pool))
			r.Use(middleware.RequireTenant())
			controllers.NewImportController(a.imports).Register(r)

			a.log.WithField("address", a.conf.SocketAddress).Info("listening")
			srv := &http.Server{Addr: a.conf.SocketAddress, Handler: r}
			return srv.ListenAndServe()
		},
	}
}
