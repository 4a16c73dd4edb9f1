package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/config"
	"assotessera/internal/core/services"
)

// codicefix audits member profiles against their fiscal codes and, with
// -fix, repairs compound first names that were registered truncated.
func main() {
	log.SetFlags(0)

	fix := flag.Bool("fix", false, "apply compound-name fixes instead of only reporting them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	svc := services.NewReconcileService(
		repositories.NewProfileRepository(db),
		repositories.NewNameRepository(db),
	)

	report, err := svc.Run(context.Background(), *fix)
	if err != nil {
		log.Fatalf("❌ Reconciliation failed: %v", err)
	}

	fmt.Printf("Profili esaminati: %d\n", report.Scanned)
	fmt.Printf("Coerenti:          %d\n", report.Consistent)
	fmt.Printf("Corretti:          %d\n", report.Fixed)
	fmt.Printf("Anomalie:          %d\n", len(report.Issues))

	for _, issue := range report.Issues {
		fmt.Printf("\n- Profilo %d (utente %d) %s %s [%s]\n",
			issue.ProfileID, issue.UserID, issue.FirstName, issue.LastName, issue.FiscalCode)
		fmt.Printf("  Problema: %s\n", issue.Problem)
		if issue.SuggestedName != "" {
			if issue.Fixed {
				fmt.Printf("  Nome aggiornato in: %s\n", issue.SuggestedName)
			} else {
				fmt.Printf("  Nome suggerito: %s (usa -fix per applicare)\n", issue.SuggestedName)
			}
		}
	}

	if !*fix && len(report.Issues) > 0 {
		fmt.Println("\nEsecuzione in sola lettura: nessuna modifica applicata.")
	}
}
