package main

import "github.com/MeKo-Tech/noiseloop/internal/cmd"

func main() {
	cmd.Execute()
}
