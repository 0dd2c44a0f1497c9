package main

import (
	"embed"
	"log"

	_ "newsletter-gate/docs"
	"newsletter-gate/internal/app"
)

// @title NewsletterGate API
// @version 1.0
// @description Gates content behind a newsletter subscription checked against MailChimp, ConvertKit or MailerLite.
// @BasePath /
// @securityDefinitions.apikey SessionAuth
// @in header
// @name Authorization

//go:embed web
var webFiles embed.FS

func main() {
	if err := app.Run(webFiles); err != nil {
		log.Fatal(err)
	}
}
