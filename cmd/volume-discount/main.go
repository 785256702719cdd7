package main

import (
	"context"
	"os"

	"github.com/noah-isme/volume-discount/internal/discount"
	"github.com/noah-isme/volume-discount/internal/function"
)

func main() {
	os.Exit(function.Execute(context.Background(), discount.NewFunction(nil), os.Stdin, os.Stdout, os.Stderr))
}
