package model

// All lists every table migrated at boot.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&Message{},
		&DailyLimit{},
		&Meal{},
		&Dietologist{},
		&Group{},
		&ClientRequest{},
	}
}
