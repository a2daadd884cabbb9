package scoring

import (
	"errors"
	"strings"

	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/types"
)

// messages holds one user-facing template per kind. {key} is replaced with
// the offending key.
var messages = map[Kind]types.LocalizedText{
	KindWeightSum: {
		"en": "Axis weights must add up to 1.",
		"tr": "Eksen ağırlıklarının toplamı 1 olmalıdır.",
		"ru": "Сумма весов осей должна быть равна 1.",
	},
	KindInvalidWeight: {
		"en": "Axis {key} has an invalid weight.",
		"tr": "{key} ekseninin ağırlığı geçersiz.",
		"ru": "У оси {key} недопустимый вес.",
	},
	KindMissingRubricLevel: {
		"en": "Axis {key} must describe all five rubric levels.",
		"tr": "{key} ekseni beş değerlendirme seviyesinin tamamını tanımlamalıdır.",
		"ru": "Ось {key} должна описывать все пять уровней.",
	},
	KindUnexpectedRubricLevel: {
		"en": "Axis {key} describes a level outside 1 to 5.",
		"tr": "{key} ekseni 1-5 aralığı dışında bir seviye tanımlıyor.",
		"ru": "Ось {key} описывает уровень вне диапазона 1–5.",
	},
	KindUnknownFormulaVar: {
		"en": "Formula {key} references an unknown name.",
		"tr": "{key} formülü tanımsız bir ada başvuruyor.",
		"ru": "Формула {key} ссылается на неизвестное имя.",
	},
	KindFormulaSyntax: {
		"en": "Formula {key} cannot be parsed.",
		"tr": "{key} formülü çözümlenemiyor.",
		"ru": "Не удалось разобрать формулу {key}.",
	},
	KindMissingFormula: {
		"en": "The {key} formula is required.",
		"tr": "{key} formülü zorunludur.",
		"ru": "Формула {key} обязательна.",
	},
	KindFormulaEval: {
		"en": "Formula {key} could not be evaluated.",
		"tr": "{key} formülü hesaplanamadı.",
		"ru": "Не удалось вычислить формулу {key}.",
	},
	KindDuplicateKey: {
		"en": "Key {key} is used more than once.",
		"tr": "{key} anahtarı birden fazla kez kullanılmış.",
		"ru": "Ключ {key} используется более одного раза.",
	},
	KindInvalidRange: {
		"en": "The answer scale minimum must be below its maximum.",
		"tr": "Cevap ölçeğinin alt sınırı üst sınırından küçük olmalıdır.",
		"ru": "Минимум шкалы ответов должен быть меньше максимума.",
	},
	KindItemCountMismatch: {
		"en": "Dimension {key} has the wrong number of questions.",
		"tr": "{key} boyutundaki soru sayısı hatalı.",
		"ru": "В измерении {key} неверное количество вопросов.",
	},
	KindInvalidItemCount: {
		"en": "Dimension {key} must declare at least one question.",
		"tr": "{key} boyutu en az bir soru tanımlamalıdır.",
		"ru": "Измерение {key} должно содержать хотя бы один вопрос.",
	},
	KindInvalidKey: {
		"en": "Key {key} is reserved or not a valid name.",
		"tr": "{key} anahtarı ayrılmış ya da geçersiz bir ad.",
		"ru": "Ключ {key} зарезервирован или недопустим.",
	},
	KindEmptySchema: {
		"en": "The schema declares no {key}.",
		"tr": "Şemada hiç {key} tanımlanmamış.",
		"ru": "В схеме не объявлены {key}.",
	},
	KindUnknownDimension: {
		"en": "A question refers to unknown dimension {key}.",
		"tr": "Bir soru tanımsız {key} boyutuna başvuruyor.",
		"ru": "Вопрос ссылается на неизвестное измерение {key}.",
	},
	KindInvalidFlag: {
		"en": "Flag {key} has no code.",
		"tr": "{key} işaretinin kodu yok.",
		"ru": "У флага {key} нет кода.",
	},
	KindUnknownSeverity: {
		"en": "{key} uses an undefined severity.",
		"tr": "{key} tanımsız bir önem derecesi kullanıyor.",
		"ru": "{key} использует неизвестный уровень серьёзности.",
	},
	KindInvalidPolicy: {
		"en": "The override rule for {key} is invalid.",
		"tr": "{key} için geçersiz kılma kuralı hatalı.",
		"ru": "Правило переопределения для {key} недопустимо.",
	},
	KindNoContentAvailable: {
		"en": "This content has no text in any language.",
		"tr": "Bu içeriğin hiçbir dilde metni yok.",
		"ru": "У этого содержимого нет текста ни на одном языке.",
	},
	KindMissingAxisScore: {
		"en": "Axis {key} has not been graded.",
		"tr": "{key} ekseni puanlanmadı.",
		"ru": "Ось {key} не оценена.",
	},
	KindUnknownAxis: {
		"en": "Axis {key} is not part of this scenario.",
		"tr": "{key} ekseni bu senaryoda yok.",
		"ru": "Оси {key} нет в этом сценарии.",
	},
	KindInvalidLevel: {
		"en": "The level for axis {key} must be between 1 and 5.",
		"tr": "{key} ekseninin seviyesi 1 ile 5 arasında olmalıdır.",
		"ru": "Уровень оси {key} должен быть от 1 до 5.",
	},
	KindOutOfRangeAnswer: {
		"en": "The answer to question {key} is outside the scale.",
		"tr": "{key} sorusunun cevabı ölçek dışında.",
		"ru": "Ответ на вопрос {key} вне шкалы.",
	},
	KindMissingAnswer: {
		"en": "Question {key} has not been answered.",
		"tr": "{key} sorusu cevaplanmadı.",
		"ru": "На вопрос {key} нет ответа.",
	},
	KindUnknownQuestion: {
		"en": "Question {key} is not part of this questionnaire.",
		"tr": "{key} sorusu bu ankette yok.",
		"ru": "Вопроса {key} нет в этой анкете.",
	},
	KindUnknownFlag: {
		"en": "Flag {key} is not defined for this scenario.",
		"tr": "{key} işareti bu senaryo için tanımlı değil.",
		"ru": "Флаг {key} не определён для этого сценария.",
	},
}

// Message renders a user-facing message for err in the requested locale.
// Errors outside the taxonomy fall back to err.Error().
func Message(err error, requested string) string {
	if err == nil {
		return ""
	}
	kind, ok := KindOf(err)
	if !ok {
		return err.Error()
	}
	template, resolveErr := locale.Resolve(messages[kind], requested)
	if resolveErr != nil {
		return err.Error()
	}

	key := ""
	var scoringErr Error
	if errors.As(err, &scoringErr) {
		key = scoringErr.Key()
	}
	return strings.ReplaceAll(template, "{key}", key)
}
