package main

import "github.com/stoik/taskbridge/services/importer/internal/app"

func main() {
	app.Execute()
}
