package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
)

// Seed a running server with demo marketplace data
func main() {
	baseURL := "http://localhost:8080"
	if v := os.Getenv("SEED_BASE_URL"); v != "" {
		baseURL = v
	}

	// First check if we already have transactions
	var feed []map[string]interface{}
	if err := getJSON(baseURL+"/analytics/transactions/uncompleted", &feed); err != nil {
		log.Fatalf("Failed to check transactions: %v", err)
	}
	if len(feed) > 0 {
		fmt.Printf("Server already has %d transactions. No need to seed.\n", len(feed))
		os.Exit(0)
	}

	// Create a buyer and a seller
	var bob struct {
		Customer struct {
			ID int `json:"id"`
		} `json:"customer"`
	}
	err := postJSON(baseURL+"/accounts", map[string]interface{}{
		"name":            "Bob",
		"initial_deposit": 2000,
	}, &bob)
	if err != nil {
		log.Fatalf("Failed to create buyer: %v", err)
	}

	var carol struct {
		Customer struct {
			ID int `json:"id"`
		} `json:"customer"`
	}
	err = postJSON(baseURL+"/accounts", map[string]interface{}{
		"name":            "Carol",
		"initial_deposit": 500,
		"store_name":      "Carol's Corner",
	}, &carol)
	if err != nil {
		log.Fatalf("Failed to create seller: %v", err)
	}
	sellerID := carol.Customer.ID

	// Stock the store
	var keyboard, mouse struct {
		ID int `json:"id"`
	}
	itemsURL := fmt.Sprintf("%s/sellers/%d/items", baseURL, sellerID)
	if err := postJSON(itemsURL, map[string]interface{}{
		"name": "Mechanical Keyboard", "quantity": 10, "price": 120.0,
	}, &keyboard); err != nil {
		log.Fatalf("Failed to add keyboard: %v", err)
	}
	if err := postJSON(itemsURL, map[string]interface{}{
		"name": "Wireless Mouse", "quantity": 25, "price": 45.0,
	}, &mouse); err != nil {
		log.Fatalf("Failed to add mouse: %v", err)
	}

	for _, itemID := range []int{keyboard.ID, mouse.ID} {
		url := fmt.Sprintf("%s/sellers/%d/items/%d/visibility", baseURL, sellerID, itemID)
		if err := postJSON(url, map[string]interface{}{"visible": true}, nil); err != nil {
			log.Fatalf("Failed to list item %d: %v", itemID, err)
		}
	}

	// Place and settle an order
	var order struct {
		ID int `json:"id"`
	}
	err = postJSON(baseURL+"/orders", map[string]interface{}{
		"buyer_id": bob.Customer.ID,
		"lines": []map[string]interface{}{
			{"item_id": keyboard.ID, "quantity": 1},
			{"item_id": mouse.ID, "quantity": 2},
		},
	}, &order)
	if err != nil {
		log.Fatalf("Failed to create order: %v", err)
	}

	payURL := fmt.Sprintf("%s/orders/%d/pay", baseURL, order.ID)
	if err := postJSON(payURL, map[string]interface{}{}, nil); err != nil {
		log.Fatalf("Failed to pay order: %v", err)
	}

	fmt.Println("Successfully seeded the marketplace with demo data!")
}

func postJSON(url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
