package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/rfidaccess/access-control-backend/internal/utils"
)

func main() {
	var password string
	pflag.StringVar(&password, "password", "", "operator password to hash for OPERATOR_PASSWORD_HASH")
	pflag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the access control backend")
	fmt.Println("===========================================")
	fmt.Println()

	accessSecret, refreshSecret, err := utils.GenerateJWTSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", accessSecret)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", refreshSecret)

	if password == "" {
		password = os.Getenv("OPERATOR_PASSWORD")
	}
	if password != "" {
		hash, err := utils.HashPassword(password)
		if err != nil {
			log.Fatalf("Failed to hash operator password: %v", err)
		}
		fmt.Printf("OPERATOR_PASSWORD_HASH=%s\n", hash)
	} else {
		fmt.Println()
		fmt.Println("Pass --password to also print OPERATOR_PASSWORD_HASH.")
	}

	fmt.Println()
	fmt.Println("IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
