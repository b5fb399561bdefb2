package main

import (
	"github.com/rentora/rental-svc/internal/app"
	"github.com/rentora/rental-svc/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
