// Command createadmin seeds a console operator account. With no
// -password a random one is generated and printed.
//
//	createadmin -username ops -password secret -role support
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"minitalk/internal/config"
	"minitalk/internal/models"
	"minitalk/internal/utils"
	"minitalk/pkg/database"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	username := flag.String("username", "", "admin username")
	password := flag.String("password", "", "admin password")
	role := flag.String("role", models.AdminRoleSupport, "admin role (support or super)")
	flag.Parse()

	if *username == "" {
		log.Fatal("-username is required")
	}
	generated := false
	if *password == "" {
		random, err := utils.GenerateSecureToken(12)
		if err != nil {
			log.Fatalf("failed to generate password: %v", err)
		}
		*password = random
		generated = true
	}
	if *role != models.AdminRoleSupport && *role != models.AdminRoleSuper {
		log.Fatalf("unknown role %q", *role)
	}

	godotenv.Load()
	cfg := config.Load()

	if err := database.InitMongoDB(cfg.Database.MongoDB); err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer database.Disconnect()

	hash, err := utils.HashPassword(*password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	_, err = database.GetCollection(database.CollAdmins).UpdateOne(ctx,
		bson.M{"username": *username},
		bson.M{
			"$set": bson.M{
				"password_hash": hash,
				"role":          *role,
			},
			"$setOnInsert": bson.M{
				"username":   *username,
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Fatalf("failed to upsert admin: %v", err)
	}

	if generated {
		log.Printf("admin %q ready with role %q, generated password: %s", *username, *role, *password)
	} else {
		log.Printf("admin %q ready with role %q", *username, *role)
	}
}
