package tool

import (
	"fmt"
	"math/rand"
)

var adjectives = []string{
	"Bright", "Clever", "Cool", "Cunning", "Fast", "Fresh", "Gentle", "Kind",
	"Lucky", "Mystic", "Neat", "Quiet", "Smart", "Solid", "Swift", "Wise",
}

var fruits = []string{
	"Apple", "Banana", "Cherry", "Coconut", "Grape", "Lemon", "Mango", "Melon",
	"Orange", "Papaya", "Peach", "Pear", "Plum", "Raspberry",
}

// NameGenerator builds a default device name such as "Swift Mango".
func NameGenerator() string {
	adjective := adjectives[rand.Intn(len(adjectives))]
	fruit := fruits[rand.Intn(len(fruits))]
	return fmt.Sprintf("%s %s", adjective, fruit)
}
