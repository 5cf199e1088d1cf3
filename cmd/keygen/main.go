package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/arnavshah/staff-scheduler-go/pkg/auth"
	"github.com/arnavshah/staff-scheduler-go/pkg/config"
)

func main() {
	config.LoadDotEnv()

	if len(os.Args) < 3 {
		fmt.Println("Usage: keygen <restaurantID> <name>")
		os.Exit(1)
	}

	restaurantID, err := strconv.ParseUint(os.Args[1], 10, 32)
	if err != nil || restaurantID == 0 {
		fmt.Println("Error: restaurantID must be a positive integer")
		os.Exit(1)
	}
	name := os.Args[2]

	secret := os.Getenv("API_MASTER_SECRET")
	if secret == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in .env")
		os.Exit(1)
	}

	apiKey := auth.New("", secret).GenerateHMACKey(uint(restaurantID), name)
	fmt.Printf("Generated Key for %s (restaurant %d):\n%s\n", name, restaurantID, apiKey)
}
