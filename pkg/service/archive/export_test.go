package archive

var ObjectName = objectName
