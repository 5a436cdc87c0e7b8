package model

// All lists every persisted model, in dependency order. Tests use it with
// AutoMigrate; production schema is owned by the goose migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Material{},
		&RemainingMaterial{},
		&Color{},
		&Variation{},
		&Product{},
		&ProductPhoto{},
		&ProductMaterial{},
		&MaterialMovement{},
		&Contact{},
		&ContactNote{},
		&Order{},
		&OrderProduct{},
		&ProgressReport{},
	}
}
