// Package main implements a standalone seed script that populates a running
// review engine with realistic test data: a roster of experts across the
// knowledge domains and a batch of review items at mixed priorities, all
// through the HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"

	"github.com/google/uuid"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func httpPost(url string, body any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return result, nil
}

var domains = []string{"spiritual", "scientific", "historical", "philosophical", "cultural", "general"}

var expertNames = []string{
	"Dr. Amara Okafor", "Prof. Jian Wei", "Dr. Elena Vasquez", "Rev. Thomas Ashby",
	"Dr. Priya Raman", "Prof. Daniel Kim", "Dr. Sofia Moreau", "Dr. Hassan Al-Rashid",
	"Prof. Ingrid Larsen", "Dr. Marcus Webb", "Dr. Yuki Tanaka", "Prof. Adaeze Nwosu",
}

var tiers = []string{"academic", "practitioner", "enthusiast"}

var priorities = []string{"critical", "high", "medium", "low"}

var contentTypes = []string{"quote", "biography", "teaching", "article"}

var sampleTitles = []string{
	"On the Nature of Patience", "Reflections at the River", "A Life in Service",
	"The Question of Suffering", "Letters to a Young Seeker", "The Middle Path Revisited",
	"Notes on Impermanence", "A Dialogue on Virtue", "The Weight of Tradition",
	"Seasons of the Spirit",
}

func main() {
	baseURL := getEnv("REVIEW_ENGINE_URL", "http://localhost:8080")
	log.Printf("seeding review engine at %s", baseURL)

	// Register experts, each covering one to three domains.
	for i, name := range expertNames {
		expertDomains := []string{domains[i%len(domains)]}
		if i%2 == 0 {
			expertDomains = append(expertDomains, domains[(i+1)%len(domains)])
		}
		if i%4 == 0 {
			expertDomains = append(expertDomains, domains[(i+3)%len(domains)])
		}

		result, err := httpPost(baseURL+"/api/v1/experts", map[string]any{
			"name":                   name,
			"email":                  fmt.Sprintf("expert%d@personaforge.dev", i+1),
			"domains":                expertDomains,
			"credential_tier":        tiers[i%len(tiers)],
			"quality_score":          50.0 + rand.Float64()*50.0,
			"max_concurrent_reviews": 2 + rand.Intn(4),
		})
		if err != nil {
			log.Printf("register expert %q: %v", name, err)
			continue
		}
		data := result["data"].(map[string]any)
		log.Printf("registered expert %s (%s)", data["id"], name)
	}

	// Submit review items across domains and priorities.
	count := 40
	submitted := 0
	for i := 0; i < count; i++ {
		result, err := httpPost(baseURL+"/api/v1/reviews", map[string]any{
			"content_id":      uuid.New().String(),
			"content_type":    contentTypes[rand.Intn(len(contentTypes))],
			"content_title":   sampleTitles[rand.Intn(len(sampleTitles))],
			"content_preview": "An excerpt awaiting verification against primary sources.",
			"domain":          domains[rand.Intn(len(domains))],
			"personality_id":  uuid.New().String(),
			"priority":        priorities[rand.Intn(len(priorities))],
		})
		if err != nil {
			log.Printf("submit review %d: %v", i+1, err)
			continue
		}
		data := result["data"].(map[string]any)
		log.Printf("submitted review %s (domain=%s status=%s)", data["id"], data["domain"], data["status"])
		submitted++
	}

	log.Printf("seed complete: %d experts, %d reviews", len(expertNames), submitted)
}
