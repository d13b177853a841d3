// Package main is the entry point for backupmgr.
package main

import "backupmgr/internal/cli"

func main() {
	cli.Execute()
}
