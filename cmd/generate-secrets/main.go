package main

import (
	"fmt"
	"log"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the ferry booking backend")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, merchantSecret, err := utils.GenerateSigningSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Println()
	fmt.Println("For a sandbox gateway only; production uses the secret issued by the aggregator:")
	fmt.Printf("PAYMENT_MERCHANT_SECRET=%s\n", merchantSecret)
	fmt.Println()
	fmt.Println("Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
