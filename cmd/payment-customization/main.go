package main

import (
	"context"
	"os"

	"github.com/noah-isme/volume-discount/internal/function"
	"github.com/noah-isme/volume-discount/internal/paymentcustom"
)

func main() {
	os.Exit(function.Execute(context.Background(), paymentcustom.NewFunction(nil), os.Stdin, os.Stdout, os.Stderr))
}
