package cli

import (
	"net"
	"net/http"

	"github.com/gotus/gotus/pkg/handler"
	"github.com/gotus/gotus/pkg/hooks"
)

func Serve() {
	CreateStores()

	config := handler.Config{
		Store:                   Store,
		InfoStore:               InfoStore,
		MaxSize:                 Flags.MaxSize,
		MaxRequestBodySize:      Flags.MaxRequestBodySize,
		BasePath:                Flags.Basepath,
		Extensions:              Flags.Extensions,
		AllowEmpty:              Flags.AllowEmpty,
		RemoveParts:             Flags.RemoveParts,
		RespectForwardedHeaders: Flags.BehindProxy,
		Cors:                    getCorsConfig(),
		Logger:                  logger,
	}

	manager := CreateHookManager()

	h, err := hooks.NewHandlerWithHooks(&config, manager, Flags.EnabledHooks)
	if err != nil {
		stderr.Fatalf("Unable to create handler: %s", err)
	}

	basepath := Flags.Basepath
	address := Flags.HttpHost + ":" + Flags.HttpPort

	stdout.Printf("Using %s as the base path.\n", basepath)

	if Flags.ExposeMetrics {
		SetupMetrics(h)
	}

	// Do not display the greeting if the handler will be mounted at the root
	// path. Else this would cause a "multiple registrations for /" panic.
	if basepath != "/" && Flags.ShowGreeting {
		PrepareGreeting()
		http.HandleFunc("/", DisplayGreeting)
	}

	http.Handle(basepath, http.StripPrefix(basepath, h))

	var listener net.Listener
	if Flags.HttpSock != "" {
		listener, err = NewUnixListener(Flags.HttpSock, Flags.NetworkTimeout, Flags.NetworkTimeout)
		if err == nil {
			stdout.Printf("Using %s as socket to listen.\n", Flags.HttpSock)
		}
	} else {
		listener, err = NewListener(address, Flags.NetworkTimeout, Flags.NetworkTimeout)
		if err == nil {
			stdout.Printf("Using %s as address to listen.\n", address)
		}
	}
	if err != nil {
		stderr.Fatalf("Unable to create listener: %s", err)
	}

	if err = http.Serve(listener, nil); err != nil {
		stderr.Fatalf("Unable to serve: %s", err)
	}
}

func getCorsConfig() *handler.CorsConfig {
	config := handler.DefaultCorsConfig
	config.Disable = Flags.DisableCors
	config.AllowOrigin = Flags.CorsAllowOrigin
	config.AllowCredentials = Flags.CorsAllowCredentials
	config.MaxAge = Flags.CorsMaxAge

	if Flags.CorsAllowMethods != "" {
		config.AllowMethods += ", " + Flags.CorsAllowMethods
	}
	if Flags.CorsAllowHeaders != "" {
		config.AllowHeaders += ", " + Flags.CorsAllowHeaders
	}
	if Flags.CorsExposeHeaders != "" {
		config.ExposeHeaders += ", " + Flags.CorsExposeHeaders
	}

	return &config
}
