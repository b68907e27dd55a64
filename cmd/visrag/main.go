// Package main is the entry point for the visrag CLI.
package main

import (
	"github.com/kart-io/visrag/cmd/visrag/app"
)

func main() {
	app.NewApp().Run()
}
