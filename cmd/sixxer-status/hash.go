package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	pkgAuth "github.com/JamesxFarris/Sixxer/internal/pkg/auth"
	"github.com/JamesxFarris/Sixxer/internal/usecase"
)

func hashToken(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return hashTokenWith(usecase.NewAuthUseCase(nil, pkgAuth.NewBcryptHasher(0)), args, stdin, stdout, stderr)
}

func hashTokenWith(auth *usecase.AuthUseCase, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(stderr, "read token: %v\n", err)
			return 1
		}
		token = strings.TrimSpace(line)
	}

	hash, err := auth.HashToken(token)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidCredentials) {
			fmt.Fprintln(stderr, "token must be at least 16 characters")
			return 2
		}
		fmt.Fprintf(stderr, "hash token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, hash)
	return 0
}
