// cmd/visitortrack/main.go
package main

import (
	"context"

	"github.com/dalemusser/waffle/app"

	"github.com/tangra/visitortrack/internal/app/bootstrap"
)

func main() {
	app.Run(context.Background(), bootstrap.Hooks)
}
