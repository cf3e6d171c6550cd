package economy

// OwnedCard is a player's holding of one card definition
type OwnedCard struct {
	Key string `json:"key"`
	Qty int    `json:"qty"`
}

// CardCatalog looks card gameplay up by key
type CardCatalog interface {
	CardGameplay(key string) (CardType, Gameplay, bool)
}

// Resolve returns one modifier per owned card of cardType whose target matches.
// Cards with no nested effect for their type are skipped.
func Resolve(catalog CardCatalog, owned []OwnedCard, cardType CardType, target Target) []Modifier {
	var mods []Modifier
	for _, oc := range owned {
		if oc.Qty <= 0 {
			continue
		}
		ct, gp, ok := catalog.CardGameplay(oc.Key)
		if !ok || ct != cardType {
			continue
		}
		if !gp.Target.Matches(target) {
			continue
		}
		eff := gp.EffectFor(cardType)
		if eff == nil {
			continue
		}
		mods = append(mods, Modifier{Qty: oc.Qty, Kind: eff.Kind, Amount: eff.Amount})
	}
	return mods
}
