package main

import (
	"log"

	approuters "github.com/OxyHQ/mention-api/internal/app_routers"
	"github.com/OxyHQ/mention-api/internal/configuration"
)

func main() {
	container, err := configuration.BuildContainer()
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	defer container.Close()

	approuters.StartServer(container)
}
