package council

// Label returns the neutral candidate label for position i: "Response A"
// through "Response Z", then "Response AA" onward. Labels conceal model
// identity during peer review.
func Label(i int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	name := ""
	i++
	for i > 0 {
		i--
		name = string(letters[i%26]) + name
		i /= 26
	}
	return "Response " + name
}

// AssignLabels labels answers in pool order and returns the label->model
// mapping used later for self-vote exclusion. Pool order, not completion
// order, keeps labeling stable across runs.
func AssignLabels(answers []Answer) map[string]string {
	labelToModel := make(map[string]string, len(answers))
	for i := range answers {
		answers[i].Label = Label(i)
		labelToModel[answers[i].Label] = answers[i].Model
	}
	return labelToModel
}
