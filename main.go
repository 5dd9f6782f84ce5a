package main

import (
	"github.com/immisense/advisor/cmd"
	_ "github.com/immisense/advisor/pkg/logger/autoload"
)

func main() {
	cmd.Execute()
}
