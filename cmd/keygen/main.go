package main

import (
	"fmt"
	"log"

	"github.com/maheshrc27/crosspost/pkg/utils"
)

// Prints a fresh TOKEN_ENCRYPTION_KEY.
func main() {
	key, err := utils.GenerateEncryptionKey()
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}
	fmt.Println(key)
}
