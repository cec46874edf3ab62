package model

import "github.com/golang-jwt/jwt"

// UserClaims is the JWT payload issued by the account system.
type UserClaims struct {
	UserName string `json:"userName"`
	jwt.StandardClaims
}
