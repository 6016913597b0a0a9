package classify

// Compiled-in defaults for a postpartum/newborn practice. Deployments override
// any of these lists through configuration.

var defaultDomainKeywords = []string{
	"breastfeed", "breastfeeding", "nursing", "latch", "milk", "pump", "pumping",
	"formula", "bottle", "feeding", "cluster feeding", "weaning", "solids",
	"sleep", "nap", "swaddle", "bedtime", "night waking",
	"colic", "reflux", "spit up", "gas",
	"diaper", "rash", "bath", "umbilical", "circumcision",
	"fever", "vaccine", "jaundice", "weight", "growth",
	"postpartum", "recovery", "bleeding", "c-section", "stitches",
	"mastitis", "engorgement", "nipple", "tummy time",
}

var defaultQuestionPatterns = []string{
	"how do i", "how often", "how much", "how long",
	"what should", "what is the best", "what can i",
	"when should", "when can", "when will",
	"is it normal", "is it safe", "is it ok",
	"should i", "can i give", "why does", "why is",
}

var defaultEmotionalPhrases = []string{
	"i feel overwhelmed", "i'm overwhelmed", "im overwhelmed",
	"i'm so tired", "im so tired", "i'm exhausted", "im exhausted",
	"i need support", "i need help coping",
	"i feel like a failure", "i can't do this", "i cant do this",
	"i'm struggling", "im struggling", "i feel alone", "feeling alone",
	"i'm so stressed", "im so stressed", "i feel sad", "i keep crying",
}

var defaultQuestionMarkers = []string{
	"what", "how", "when", "why", "where", "which", "should",
}

var defaultEmergencyKeywords = []string{
	"not breathing", "stopped breathing", "struggling to breathe",
	"turning blue", "blue lips", "seizure", "convulsion",
	"unresponsive", "unconscious", "won't wake up", "wont wake up",
	"choking", "severe bleeding", "bleeding heavily",
	"head injury", "fell on head", "poison", "swallowed",
}

var defaultEmergencyExclusions = []string{
	"blueprint", "guide", "plan", "course", "handbook", "checklist", "webinar",
}
