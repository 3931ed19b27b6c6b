package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-ioc/framework/app"
	"github.com/km-arc/go-ioc/framework/container"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ── Example services ──────────────────────────────────────────────────────────

type Transport struct{ Host string }

type Mailer struct {
	Transport *Transport
	From      string
}

func NewMailer(t *Transport, from string) *Mailer { return &Mailer{Transport: t, From: from} }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New() // loads .env automatically
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := register(application); err != nil {
		log.Fatalf("register: %v", err)
	}

	router, err := application.Router()
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	// GET /mail/from resolves the mailer on every request.
	router.Get("/mail/from", func(w http.ResponseWriter, _ *http.Request) {
		mu := application.Locker()
		mu.Lock()
		mailer, err := container.Resolve[*Mailer](application.Container, "mailer")
		mu.Unlock()

		res := gohttp.NewResponse(w)
		if err != nil {
			res.ServerError(err.Error())
			return
		}
		res.Success(map[string]any{"from": mailer.From, "host": mailer.Transport.Host})
	})

	router.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			gohttp.NewResponse(w).Success(map[string]any{"status": "ok"})
		})
	})

	if err := application.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// register binds the example services. Browse them at /container/bindings,
// /container/explain/mailer and /container/aliases/mail.
func register(a *app.Application) error {
	if err := a.Singleton("Transport", container.Value(&Transport{Host: "smtp.local"})); err != nil {
		return err
	}
	err := a.Singleton("Mailer", container.MustClass("SmtpMailer", NewMailer,
		container.Dep("t", "Transport"),
		container.Arg("from").Or("noreply@example.com"),
	))
	if err != nil {
		return err
	}
	if err := a.Alias("Mailer", "mail"); err != nil {
		return err
	}
	if err := a.Alias("mail", "mailer"); err != nil {
		return err
	}
	if err := a.AssignAliasToGroup("mail", "outbound"); err != nil {
		return err
	}
	a.Tag("outbound", "Mailer", "Transport")
	return nil
}
