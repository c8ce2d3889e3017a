package main

import "github.com/ciefp/CiefpOpenSubtitles/internal/cmd"

func main() {
	cmd.Execute()
}
