package game

var phraseBank = []Phrase{
	{Text: "Hello", SourceLang: "en", TargetLang: "es", Answer: "Hola"},
	{Text: "Thank you", SourceLang: "en", TargetLang: "fr", Answer: "Merci"},
	{Text: "Good morning", SourceLang: "en", TargetLang: "de", Answer: "Guten Morgen"},
	{Text: "Goodbye", SourceLang: "en", TargetLang: "it", Answer: "Arrivederci"},
	{Text: "Yes", SourceLang: "en", TargetLang: "ja", Answer: "はい (Hai)"},
	{Text: "No", SourceLang: "en", TargetLang: "es", Answer: "No"},
	{Text: "Please", SourceLang: "en", TargetLang: "fr", Answer: "S'il vous plaît"},
	{Text: "Excuse me", SourceLang: "en", TargetLang: "de", Answer: "Entschuldigung"},
	{Text: "Water", SourceLang: "en", TargetLang: "it", Answer: "Acqua"},
	{Text: "Friend", SourceLang: "en", TargetLang: "ja", Answer: "友達 (Tomodachi)"},
}

const optimizationProblem = "Optimize the array sorting function (bubble sort)"

const optimizationBaseline = `function bubbleSort(arr) {
  let len = arr.length;
  for (let i = 0; i < len; i++) {
    for (let j = 0; j < len - i - 1; j++) {
      if (arr[j] > arr[j + 1]) {
        let temp = arr[j];
        arr[j] = arr[j + 1];
        arr[j + 1] = temp;
      }
    }
  }
  return arr;
}`
