package catalog

// DemoRegistry returns a small built-in species and item set, used when no
// catalog file is configured.
func DemoRegistry() *Registry {
	r := NewRegistry()

	r.RegisterSpecies(Species{
		Name:      "Fieldmouse",
		Hitbox:    Hitbox{Width: 0.6, Height: 0.5},
		BaseStats: [6]int{35, 56, 35, 25, 35, 72},
	})
	r.RegisterSpecies(Species{
		Name: "Duskwing",
		Forms: []Form{
			{ID: "crimson", Aspects: []string{"crimson-wings"}},
			{ID: "azure"},
		},
		Hitbox:    Hitbox{Width: 0.9, Height: 0.9},
		BaseStats: [6]int{60, 45, 50, 80, 60, 65},
	})
	r.RegisterSpecies(Species{
		Name:      "Mossback",
		Hitbox:    Hitbox{Width: 1.8, Height: 1.6},
		BaseStats: [6]int{90, 75, 85, 40, 70, 30},
	})

	r.RegisterItem("demo:berry")
	r.RegisterItem("demo:everstone")
	r.RegisterItem("demo:lucky_egg")

	return r
}
