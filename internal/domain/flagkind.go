package domain

// FlagKind enumerates the risk flags an entity can carry. The values are the
// stored representation; TopicToFlagKind maps raw watchlist topic strings
// onto them.
type FlagKind string

const (
	FlagCrime               FlagKind = "crime"
	FlagFraud               FlagKind = "fraud"
	FlagCyberCrime          FlagKind = "cyber_crime"
	FlagFinancialCrime      FlagKind = "financial_crime"
	FlagEnvironmentCrime    FlagKind = "environment_crime"
	FlagTheft               FlagKind = "theft"
	FlagWarCrimes           FlagKind = "war_crimes"
	FlagCriminalLeadership  FlagKind = "criminal_leadership"
	FlagTerrorism           FlagKind = "terrorism"
	FlagTrafficking         FlagKind = "trafficking"
	FlagDrugTrafficking     FlagKind = "drug_trafficking"
	FlagHumanTrafficking    FlagKind = "human_trafficking"
	FlagWanted              FlagKind = "wanted"
	FlagOffshore            FlagKind = "offshore"
	FlagShellCompany        FlagKind = "shell_company"
	FlagPublicCompany       FlagKind = "public_company"
	FlagDisqualified        FlagKind = "disqualified"
	FlagGovernment          FlagKind = "government"
	FlagNationalGovernment  FlagKind = "national_government"
	FlagStateGovernment     FlagKind = "state_government"
	FlagMunicipalGovernment FlagKind = "municipal_government"
	FlagStateOwnedCompany   FlagKind = "state_owned_company"
	FlagIntergovernmental   FlagKind = "intergovernmental"
	FlagHeadOfGovernment    FlagKind = "head_of_government"
	FlagCivilService        FlagKind = "civil_service"
	FlagExecutiveBranch     FlagKind = "executive_branch"
	FlagLegislativeBranch   FlagKind = "legislative_branch"
	FlagJudicialBranch      FlagKind = "judicial_branch"
	FlagSecurityServices    FlagKind = "security_services"
	FlagCentralBanking      FlagKind = "central_banking"
	FlagReligiousLeadership FlagKind = "religious_leadership"
	FlagFinancialServices   FlagKind = "financial_services"
	FlagBank                FlagKind = "bank"
	FlagFund                FlagKind = "fund"
	FlagFinancialAdvisor    FlagKind = "financial_advisor"
	FlagRegulatorAction     FlagKind = "regulator_action"
	FlagRegulatorWarning    FlagKind = "regulator_warning"
	FlagPolitician          FlagKind = "politician"
	FlagNonPEP              FlagKind = "non_pep"
	FlagCloseAssociate      FlagKind = "close_associate"
	FlagJudge               FlagKind = "judge"
	FlagCivilServant        FlagKind = "civil_servant"
	FlagDiplomat            FlagKind = "diplomat"
	FlagLawyer              FlagKind = "lawyer"
	FlagAccountant          FlagKind = "accountant"
	FlagSpy                 FlagKind = "spy"
	FlagOligarch            FlagKind = "oligarch"
	FlagJournalist          FlagKind = "journalist"
	FlagActivist            FlagKind = "activist"
	FlagLobbyist            FlagKind = "lobbyist"
	FlagPoliticalParty      FlagKind = "political_party"
	FlagUnion               FlagKind = "union"
	FlagReligion            FlagKind = "religion"
	FlagMilitary            FlagKind = "military"
	FlagFrozenAsset         FlagKind = "frozen_asset"
	FlagSanctionedEntity    FlagKind = "sanctioned_entity"
	FlagSanctionLinked      FlagKind = "sanction_linked"
	FlagCounterSanctioned   FlagKind = "counter_sanctioned"
	FlagExportControlled    FlagKind = "export_controlled"
	FlagTradeRisk           FlagKind = "trade_risk"
	FlagDebarred            FlagKind = "debarred"
	FlagPersonOfInterest    FlagKind = "person_of_interest"
)

// topicFlagTable maps watchlist topic strings to flag kinds. The "fin.adivsor"
// spelling is the upstream's, not ours.
var topicFlagTable = map[string]FlagKind{
	"crime":                FlagCrime,
	"crime.fraud":          FlagFraud,
	"crime.cyber":          FlagCyberCrime,
	"crime.fin":            FlagFinancialCrime,
	"crime.env":            FlagEnvironmentCrime,
	"crime.theft":          FlagTheft,
	"crime.war":            FlagWarCrimes,
	"crime.boss":           FlagCriminalLeadership,
	"crime.terror":         FlagTerrorism,
	"crime.traffick":       FlagTrafficking,
	"crime.traffick.drug":  FlagDrugTrafficking,
	"crime.traffick.human": FlagHumanTrafficking,
	"wanted":               FlagWanted,
	"corp.offshore":        FlagOffshore,
	"corp.shell":           FlagShellCompany,
	"corp.public":          FlagPublicCompany,
	"corp.disqual":         FlagDisqualified,
	"gov":                  FlagGovernment,
	"gov.national":         FlagNationalGovernment,
	"gov.state":            FlagStateGovernment,
	"gov.muni":             FlagMunicipalGovernment,
	"gov.soe":              FlagStateOwnedCompany,
	"gov.igo":              FlagIntergovernmental,
	"gov.head":             FlagHeadOfGovernment,
	"gov.admin":            FlagCivilService,
	"gov.executive":        FlagExecutiveBranch,
	"gov.legislative":      FlagLegislativeBranch,
	"gov.judicial":         FlagJudicialBranch,
	"gov.security":         FlagSecurityServices,
	"gov.financial":        FlagCentralBanking,
	"gov.religion":         FlagReligiousLeadership,
	"fin":                  FlagFinancialServices,
	"fin.bank":             FlagBank,
	"fin.fund":             FlagFund,
	"fin.adivsor":          FlagFinancialAdvisor,
	"reg.action":           FlagRegulatorAction,
	"reg.warn":             FlagRegulatorWarning,
	"role.pep":             FlagPolitician,
	"role.pol":             FlagNonPEP,
	"role.rca":             FlagCloseAssociate,
	"role.judge":           FlagJudge,
	"role.civil":           FlagCivilServant,
	"role.diplo":           FlagDiplomat,
	"role.lawyer":          FlagLawyer,
	"role.acct":            FlagAccountant,
	"role.spy":             FlagSpy,
	"role.oligarch":        FlagOligarch,
	"role.journo":          FlagJournalist,
	"role.act":             FlagActivist,
	"role.lobby":           FlagLobbyist,
	"pol.party":            FlagPoliticalParty,
	"pol.union":            FlagUnion,
	"rel":                  FlagReligion,
	"mil":                  FlagMilitary,
	"asset.frozen":         FlagFrozenAsset,
	"sanction":             FlagSanctionedEntity,
	"sanction.linked":      FlagSanctionLinked,
	"sanction.counter":     FlagCounterSanctioned,
	"export.control":       FlagExportControlled,
	"export.risk":          FlagTradeRisk,
	"debarment":            FlagDebarred,
	"poi":                  FlagPersonOfInterest,
}

// TopicToFlagKind resolves a raw topic string. Unknown topics return false
// and are dropped silently by callers.
func TopicToFlagKind(topic string) (FlagKind, bool) {
	k, ok := topicFlagTable[topic]
	return k, ok
}

// FlagsFromTopics maps a topic list, silently dropping unknown entries.
func FlagsFromTopics(topics []string) []FlagKind {
	out := make([]FlagKind, 0, len(topics))
	for _, t := range topics {
		if k, ok := TopicToFlagKind(t); ok {
			out = append(out, k)
		}
	}
	return out
}
