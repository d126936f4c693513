// Command pqdesk is a terminal browser and editor for Parquet files.
package main

import "github.com/pqdesk/pqdesk/internal/cli"

func main() {
	cli.Execute()
}
