package main

import "contribcalc/internal/app/server"

func main() {
	server.Run()
}
