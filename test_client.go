package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Ад-хок клиент для ручной проверки REST API редактора.
// Запуск: go run test_client.go (сервер должен слушать :8080).

const baseURL = "http://localhost:8080/api"

func main() {
	fmt.Println("=== ТЕСТОВЫЙ КЛИЕНТ REST API РЕДАКТОРА ===")

	client := &http.Client{Timeout: 5 * time.Second}

	// 1. Создаём документ
	resp := post(client, "/documents", nil)
	docID := resp["data"].(map[string]interface{})["id"].(string)
	fmt.Printf("Создан документ: %s\n", docID)

	// 2. Рисуем линию и фиксируем жест
	post(client, "/documents/"+docID+"/voxels", map[string]interface{}{
		"voxels": []map[string]interface{}{
			{"x": 0, "y": 0, "z": 0, "color": "#ff0000"},
			{"x": 1, "y": 0, "z": 0, "color": "#ff0000"},
			{"x": 2, "y": 0, "z": 0, "color": "#ff0000"},
		},
		"commit": true,
	})
	fmt.Println("Жест зафиксирован")

	// 3. Процедурная сфера
	post(client, "/documents/"+docID+"/proc", map[string]interface{}{
		"source": "sphere 8 8 8 4 #00ff00",
	})
	fmt.Println("Сфера сгенерирована")

	// 4. Состояние документа
	state := get(client, "/documents/"+docID)
	data := state["data"].(map[string]interface{})
	fmt.Printf("Ключ: %v, история: %v (глубина %v)\n",
		data["key"], data["history_state"], data["history_len"])

	// 5. Undo / Redo
	undo := post(client, "/documents/"+docID+"/undo", map[string]interface{}{})
	fmt.Printf("Undo: %v\n", undo["data"].(map[string]interface{})["done"])
	redo := post(client, "/documents/"+docID+"/redo", map[string]interface{}{})
	fmt.Printf("Redo: %v\n", redo["data"].(map[string]interface{})["done"])

	fmt.Println("=== ГОТОВО ===")
}

func post(client *http.Client, path string, body interface{}) map[string]interface{} {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("Ошибка сериализации: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	resp, err := client.Post(baseURL+path, "application/json", reader)
	if err != nil {
		log.Fatalf("Ошибка запроса POST %s: %v", path, err)
	}
	return decode(resp, path)
}

func get(client *http.Client, path string) map[string]interface{} {
	resp, err := client.Get(baseURL + path)
	if err != nil {
		log.Fatalf("Ошибка запроса GET %s: %v", path, err)
	}
	return decode(resp, path)
}

func decode(resp *http.Response, path string) map[string]interface{} {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Ошибка чтения ответа %s: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Запрос %s вернул %d: %s", path, resp.StatusCode, raw)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Fatalf("Ошибка разбора ответа %s: %v", path, err)
	}
	return result
}
