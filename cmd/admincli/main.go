package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/config"
	"assotessera/internal/pkg/password"
)

const usage = `Usage: admincli <command> [flags]

Commands:
  admin create         -email <email> -password <password>
  admin reset-password -email <email> -password <password>
  year create          -name <name> -start <YYYY-MM-DD> -end <YYYY-MM-DD> -fee <cents>
  year activate        -id <id>
  year list
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 3 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}

	ctx := context.Background()
	adminRepo := repositories.NewAdminRepository(db)
	yearRepo := repositories.NewYearRepository(db)

	switch os.Args[1] + " " + os.Args[2] {
	case "admin create":
		email, pw := adminFlags(os.Args[3:])
		createAdmin(ctx, adminRepo, email, pw)
	case "admin reset-password":
		email, pw := adminFlags(os.Args[3:])
		resetAdminPassword(ctx, adminRepo, email, pw)
	case "year create":
		createYear(ctx, yearRepo, os.Args[3:])
	case "year activate":
		activateYear(ctx, yearRepo, os.Args[3:])
	case "year list":
		listYears(ctx, yearRepo)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func adminFlags(args []string) (string, string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	email := fs.String("email", "", "admin email")
	pw := fs.String("password", "", "admin password")
	fs.Parse(args)

	if *email == "" || *pw == "" {
		log.Fatal("❌ Both -email and -password are required")
	}
	if !password.ValidatePassword(*pw) {
		log.Fatal("❌ Password must be at least 8 characters with upper, lower and digit")
	}
	return strings.ToLower(strings.TrimSpace(*email)), *pw
}

func createAdmin(ctx context.Context, repo repositories.AdminRepository, email, pw string) {
	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		log.Fatalf("❌ Lookup failed: %v", err)
	}
	if exists {
		log.Fatalf("❌ Admin %s already exists (use reset-password)", email)
	}

	hash, err := password.Hash(pw)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	admin := &models.Admin{Email: email, Password: hash}
	if err := repo.Create(ctx, admin); err != nil {
		log.Fatalf("❌ Failed to create admin: %v", err)
	}
	log.Printf("✅ Admin %s created (id %d)", email, admin.ID)
}

func resetAdminPassword(ctx context.Context, repo repositories.AdminRepository, email, pw string) {
	admin, err := repo.GetByEmail(ctx, email)
	if err != nil {
		log.Fatalf("❌ Admin %s not found", email)
	}

	hash, err := password.Hash(pw)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	if err := repo.UpdatePassword(ctx, admin.ID, hash); err != nil {
		log.Fatalf("❌ Failed to update password: %v", err)
	}
	log.Printf("✅ Password updated for %s", email)
}

func createYear(ctx context.Context, repo repositories.YearRepository, args []string) {
	fs := flag.NewFlagSet("year create", flag.ExitOnError)
	name := fs.String("name", "", "year label, e.g. 2026/2027")
	start := fs.String("start", "", "start date (YYYY-MM-DD)")
	end := fs.String("end", "", "end date (YYYY-MM-DD)")
	fee := fs.Int("fee", 0, "membership fee in euro cents")
	fs.Parse(args)

	if *name == "" || *start == "" || *end == "" || *fee <= 0 {
		log.Fatal("❌ -name, -start, -end and a positive -fee are required")
	}

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("❌ Invalid start date: %v", err)
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		log.Fatalf("❌ Invalid end date: %v", err)
	}
	if !endDate.After(startDate) {
		log.Fatal("❌ End date must be after start date")
	}

	year := &models.AssociationYear{
		Name:      *name,
		StartDate: startDate,
		EndDate:   endDate,
		FeeCents:  *fee,
	}
	if err := repo.Create(ctx, year); err != nil {
		log.Fatalf("❌ Failed to create year: %v", err)
	}
	log.Printf("✅ Year %s created (id %d, fee %.2f€) — activate it with: year activate -id %d",
		year.Name, year.ID, float64(year.FeeCents)/100, year.ID)
}

func activateYear(ctx context.Context, repo repositories.YearRepository, args []string) {
	fs := flag.NewFlagSet("year activate", flag.ExitOnError)
	id := fs.Uint("id", 0, "year id")
	fs.Parse(args)

	if *id == 0 {
		log.Fatal("❌ -id is required")
	}

	year, err := repo.GetByID(ctx, uint(*id))
	if err != nil {
		log.Fatalf("❌ Year %d not found", *id)
	}

	if err := repo.ActivateExclusive(ctx, year.ID); err != nil {
		log.Fatalf("❌ Failed to activate year: %v", err)
	}
	log.Printf("✅ Year %s is now the active year", year.Name)
}

func listYears(ctx context.Context, repo repositories.YearRepository) {
	years, err := repo.List(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to list years: %v", err)
	}
	if len(years) == 0 {
		log.Println("No years configured yet")
		return
	}

	fmt.Printf("%-4s %-12s %-12s %-12s %-10s %s\n", "ID", "NAME", "START", "END", "FEE", "ACTIVE")
	for _, y := range years {
		active := ""
		if y.IsActive {
			active = "✅"
		}
		fmt.Printf("%-4d %-12s %-12s %-12s %-10s %s\n",
			y.ID, y.Name,
			y.StartDate.Format("2006-01-02"), y.EndDate.Format("2006-01-02"),
			fmt.Sprintf("%.2f€", float64(y.FeeCents)/100), active)
	}
}
