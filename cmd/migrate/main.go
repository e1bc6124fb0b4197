package main

import (
	"flag"
	"os"
	"path/filepath"
	"sort"

	"matchday-service/database"
	"matchday-service/logger"
)

func main() {
	extraDir := flag.String("dir", "database/migrations", "directory of additional *.sql files run after the built-in schema")
	flag.Parse()

	// 从环境变量获取数据库 URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatalf("DATABASE_URL environment variable is not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger.Println("Connected to database successfully")

	if err := database.Migrate(db); err != nil {
		logger.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Printf("Applied %d built-in schema statements", len(database.Migrations))

	// 额外的迁移文件, 按文件名顺序执行
	files, err := filepath.Glob(filepath.Join(*extraDir, "*.sql"))
	if err != nil {
		logger.Fatalf("Failed to read migrations directory: %v", err)
	}
	sort.Strings(files)

	for _, file := range files {
		logger.Printf("Running migration: %s", filepath.Base(file))

		content, err := os.ReadFile(file)
		if err != nil {
			logger.Fatalf("Failed to read migration file %s: %v", file, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			logger.Fatalf("Failed to execute migration %s: %v", file, err)
		}

		logger.Printf("Migration %s completed successfully", filepath.Base(file))
	}

	logger.Println("All migrations completed successfully!")
}
