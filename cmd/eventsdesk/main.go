package main

import "github.com/Togather-Foundation/eventsdesk/cmd/eventsdesk/cmd"

func main() {
	cmd.Execute()
}
