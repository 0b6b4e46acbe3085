// Seed script for creating the demo restaurants database.
// Run with: go run ./scripts/seed.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Thommy96/BaRiStA/internal/config"
	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/ontology"
	"github.com/Thommy96/BaRiStA/internal/store"
)

const (
	weekdays11to22 = `{"Monday": "Closed", "Tuesday": "11:30-22:00", "Wednesday": "11:30-22:00", "Thursday": "11:30-22:00", "Friday": "11:30-23:00", "Saturday": "11:30-23:00", "Sunday": "12:00-21:00"}`
	daily12to23    = `{"Monday": "12:00-23:00", "Tuesday": "12:00-23:00", "Wednesday": "12:00-23:00", "Thursday": "12:00-23:00", "Friday": "12:00-23:00", "Saturday": "12:00-23:00", "Sunday": "12:00-23:00"}`
	evenings       = `{"Monday": "17:00-23:00", "Tuesday": "17:00-23:00", "Wednesday": "Closed", "Thursday": "17:00-23:00", "Friday": "17:00-24:00", "Saturday": "17:00-24:00", "Sunday": "Closed"}`
	lunchAndDinner = `{"Monday": "11:30–14:30, 17:30–22:00", "Tuesday": "11:30–14:30, 17:30–22:00", "Wednesday": "11:30–14:30, 17:30–22:00", "Thursday": "11:30–14:30, 17:30–22:00", "Friday": "11:30–14:30, 17:30–23:00", "Saturday": "17:30–23:00", "Sunday": "Closed"}`
	cafeHours      = `{"Monday": "08:00-19:00", "Tuesday": "08:00-19:00", "Wednesday": "08:00-19:00", "Thursday": "08:00-19:00", "Friday": "08:00-19:00", "Saturday": "09:00-18:00", "Sunday": "10:00-18:00"}`
)

var columns = []string{
	"name", "cuisine", "price_range", "area", "rating", "num_reviews", "reviews",
	"opening_hours", "manner", "address", "phone", "website",
}

var rows = [][]string{
	{"Trattoria Da Franco", "italian", "moderate", "west", "4.3", "212",
		"['Best carbonara in town', 'Friendly staff']", weekdays11to22,
		`["takeaway", "dine-in", "No delivery"]`, "Rotebühlstraße 50, 70178 Stuttgart",
		"0711 123456", "https://da-franco.example"},
	{"Taverna Akropolis", "greek", "cheap", "ost", "4.0", "87",
		"['Huge portions']", lunchAndDinner,
		`["dine-in", "outdoor seating", "delivery"]`, "Neckarstraße 120, 70190 Stuttgart",
		"0711 234567", ""},
	{"Sakura Sushi", "japanese", "expensive", "mitte", "4.6", "1,034",
		"[]", daily12to23,
		`["takeaway", "drive-through", "dine-in"]`, "Calwer Straße 10, 70173 Stuttgart",
		"0711 345678", "https://sakura-sushi.example"},
	{"Pizzeria Napoli", "italian", "cheap", "süd", "3.8", "42",
		"['Crispy crust', \"Owner's tiramisu is a must\"]", evenings,
		`["takeaway", "delivery"]`, "Tübinger Straße 5, 70178 Stuttgart",
		"0711 456789", ""},
	{"Zur Weinsteige", "swabian", "expensive", "süd", "4.8", "356",
		"['Excellent Maultaschen']", lunchAndDinner,
		`["dine-in", "outdoor seating", "No takeaway"]`, "Hohenheimer Straße 30, 70184 Stuttgart",
		"0711 567890", "https://weinsteige.example"},
	{"Cafe Königsbau", "cafe", "moderate", "mitte", "4.1", "128",
		"[]", cafeHours,
		`["takeaway", "dine-in", "outdoor seating"]`, "Königstraße 28, 70173 Stuttgart",
		"0711 678901", ""},
	{"Dudelsack Stuttgart", "pub", "cheap", "west", "3.9", "64",
		"['Great beer selection']", evenings,
		`["dine-in"]`, "Silberburgstraße 100, 70176 Stuttgart",
		"0711 789012", ""},
	{"Saigon Kitchen", "vietnamese", "cheap", "bad cannstatt", "4.4", "150",
		"['Pho like in Hanoi']", weekdays11to22,
		`["takeaway", "pickup", "delivery"]`, "Marktstraße 15, 70372 Stuttgart",
		"0711 890123", "https://saigon-kitchen.example"},
}

func main() {
	_ = config.Load()

	onto, err := ontology.Load(config.OntologyPath())
	if err != nil {
		log.Fatalf("Failed to load ontology: %v", err)
	}
	table := config.KBTable()
	if table == "" {
		table = onto.DomainName()
	}

	target := config.KBSource()
	if store.IsPostgresURL(target) {
		log.Fatalf("KB_SOURCE must be a file path for seeding, got %s", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", filepath.Dir(target), err)
	}

	ctx := context.Background()
	if err := store.WriteSQLite(ctx, target, &domain.RowSet{Table: table, Columns: columns, Rows: rows}); err != nil {
		log.Fatalf("Failed to write knowledge base: %v", err)
	}

	fmt.Printf("Wrote %d %s entities to %s (table %q)\n", len(rows), onto.Keyword(), target, table)
	fmt.Println("\nTo start a dialogue, run the server and use:")
	fmt.Println("curl -X POST http://localhost:8080/v1/dialogues")
}
