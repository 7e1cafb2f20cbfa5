package main

import "github.com/Tiliavir/toggl-worklog-sync/cmd"

func main() {
	cmd.Execute()
}
