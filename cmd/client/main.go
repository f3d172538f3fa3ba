package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	api "gitlab.com/dirk.krummacker/membership-service/pkg/model"
)

const serverPort = 8080

// Usage example on the command line:
// > go run main.go
func main() {
	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET       PAY    DELETE ")
	fmt.Println("-------------------------------------------------------------")
	sizes := []int{100, 500, 1000, 5000}
	jsonBody := []byte(`{
		"name": "Marcus Antonius",
		"contact": "+39 999 777 555",
		"membershipType": "quarterly",
		"feeAmount": "4500",
		"lastPaymentDate": "2024-01-15"
	}`)
	for _, loops := range sizes {
		fmt.Printf("%10d", loops)
		ids := make([]int64, 0, loops)
		{
			// POST requests
			var duration int64
			for i := 0; i < loops; i++ {
				id, d := sendPostRequest(bytes.NewReader(jsonBody))
				ids = append(ids, id)
				duration += d
			}
			fmt.Printf("%10d", duration/int64(loops*1000))
		}
		{
			// PUT requests
			f := func(id int64) int64 {
				return sendMemberRequest(http.MethodPut, memberURL(id), bytes.NewReader(jsonBody))
			}
			callInLoop(ids, f)
		}
		{
			// GET requests
			f := func(id int64) int64 {
				return sendMemberRequest(http.MethodGet, memberURL(id), nil)
			}
			callInLoop(ids, f)
		}
		{
			// payments
			f := func(id int64) int64 {
				return sendMemberRequest(http.MethodPost, memberURL(id)+"/payments", nil)
			}
			callInLoop(ids, f)
		}
		{
			// DELETE requests
			f := func(id int64) int64 {
				return sendMemberRequest(http.MethodDelete, memberURL(id)+"?confirm=true", nil)
			}
			callInLoop(ids, f)
		}
		fmt.Println()
	}
}

func callInLoop(ids []int64, f func(id int64) int64) {
	shuffled := append([]int64(nil), ids...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var duration int64
	for _, id := range shuffled {
		duration += f(id)
	}
	fmt.Printf("%10d", duration/int64(len(ids)*1000))
}

func memberURL(id int64) string {
	return fmt.Sprintf("http://localhost:%d/members/%d", serverPort, id)
}

func sendPostRequest(bodyReader io.Reader) (int64, int64) {
	requestURL := fmt.Sprintf("http://localhost:%d/members", serverPort)
	resBody, duration := sendRequest(http.MethodPost, requestURL, bodyReader)
	var member api.Member
	err := json.Unmarshal(resBody, &member)
	if err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	return member.Id, duration
}

func sendMemberRequest(method string, requestURL string, bodyReader io.Reader) int64 {
	_, duration := sendRequest(method, requestURL, bodyReader)
	return duration
}

func sendRequest(method string, requestURL string, bodyReader io.Reader) ([]byte, int64) {
	req, err := http.NewRequest(method, requestURL, bodyReader)
	if err != nil {
		fmt.Println("could not create request", err)
		panic(err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	before := time.Now().UnixNano()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	after := time.Now().UnixNano()
	return resBody, after - before
}
