package main

import (
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/pkg/database"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// 用法：go run ./cmd/add_user -school-id S-1001 -name "Ana Cruz" -password secret123 -role student -year 1 -section A
func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	schoolID := flag.String("school-id", "", "学号或工号")
	fullName := flag.String("name", "", "姓名")
	password := flag.String("password", "", "初始密码（至少 8 位）")
	role := flag.String("role", string(model.Student), "admin / faculty / student")
	yearLevel := flag.Int("year", 0, "年级（学生必填）")
	section := flag.String("section", "", "班级（学生必填）")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize database connection
	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(repository.NewUserRepository(db), cfg)
	user, err := authService.CreateUser(service.CreateUserReq{
		SchoolID:  *schoolID,
		FullName:  *fullName,
		Password:  *password,
		Role:      model.UserRole(*role),
		YearLevel: *yearLevel,
		Section:   *section,
	})
	if err != nil {
		fmt.Printf("Error creating user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("User created successfully: %s %s (%s)\n", user.SchoolID, user.FullName, user.Role)
}
