// Command apikey issues a storefront API key for a user, creating the user
// when the email is unknown. The raw key is printed once.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/ecomdemo/cardsync/app/models"
	"github.com/ecomdemo/cardsync/app/repository"
	"github.com/ecomdemo/cardsync/internal/pkg/config"
	"github.com/ecomdemo/cardsync/internal/pkg/database"
	"github.com/ecomdemo/cardsync/internal/pkg/env"
)

func main() {
	email := flag.String("email", "", "user email")
	name := flag.String("name", "", "display name for a new user")
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(1)
	}

	env.SetupEnvFile()
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		log.Fatalf("Database unavailable: %v", err)
	}

	raw, err := issueKey(repository.NewUserRepository(db), *email, *name)
	if err != nil {
		log.Fatalf("Failed to issue API key: %v", err)
	}
	fmt.Println(raw)
}

func issueKey(users repository.UserRepository, email, name string) (string, error) {
	user, err := users.GetByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	created := user == nil
	if created {
		if name == "" {
			name = email
		}
		user = &models.User{Name: name, Email: email, Status: models.STATUS_ACTIVE}
		if err := user.Validate(); err != nil {
			return "", err
		}
	}

	raw, err := user.RotateAPIKey()
	if err != nil {
		return "", err
	}

	if created {
		err = users.Create(user)
	} else {
		err = users.Update(user)
	}
	if err != nil {
		return "", err
	}
	log.Printf("Issued API key %s... for user %d", user.APIKeyPrefix, user.ID)
	return raw, nil
}
