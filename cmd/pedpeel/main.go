package main

import (
	"github.com/jgbaldwinbrown/pedpeel/pkg"
)

func main() {
	pedpeel.FullPeel()
}
