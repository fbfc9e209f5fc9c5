package home

func init() {
	RegisterCommand(&Command{
		Names:      []string{"curse", "lock"},
		Help:       "Locks user to bot's channel",
		Permission: PermAdmin,
		Run:        handleMemberCurse,
	})
	RegisterCommand(&Command{
		Names:      []string{"uncurse", "unlock"},
		Help:       "Unlocks user from bot's channel",
		Permission: PermAdmin,
		Run:        handleMemberUncurse,
	})
}
