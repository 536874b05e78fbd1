package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"subgate/pkg/hash"
)

// hashgen prints the bcrypt hash to put into ADMIN_PASSWORD_HASH.
func main() {
	var password string
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			log.Fatal(err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		log.Fatal("empty password")
	}

	hashed, err := hash.HashAdminPassword(password)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hashed)
}
