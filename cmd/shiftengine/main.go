// shiftengine 排班分配决策引擎
// 主程序入口

package main

import (
	"os"

	"github.com/paiban/shiftassign/cmd/shiftengine/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
