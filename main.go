package main

import "cotacoes-ledger/internal/cli"

func main() {
	cli.Execute()
}
