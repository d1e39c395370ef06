/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/xjj0211/approval-frontend/cmd"

func main() {
	cmd.Execute()
}
