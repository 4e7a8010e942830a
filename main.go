package main

import "github.com/llehouerou/wavesd/internal/cli"

func main() {
	cli.Execute()
}
