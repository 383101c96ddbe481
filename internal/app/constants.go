package app

// MinPlayersToStartGame defines the minimum number of players required to
// start a session. Chronicle is playable solo; keep this centralized so
// tests or local runs can adjust the rule without touching call sites.
const MinPlayersToStartGame = 1
