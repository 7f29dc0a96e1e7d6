package main

import "github.com/hisui-dev/watchparty/server/cmd"

func main() {
	cmd.Execute()
}
