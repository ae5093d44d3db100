package main

import "github.com/frauddesk/fraudctl/pkg/cli"

func main() {
	cli.Execute()
}
