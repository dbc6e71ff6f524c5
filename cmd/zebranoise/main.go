package main

import "github.com/MeKo-Tech/zebranoise/internal/cmd"

func main() {
	cmd.Execute()
}
